package detector

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// prepareInput resizes the frame to the model's square input and fills
// the tensor with channel-planar float32 values in [0, 1].
//
// Arguments:
//   - img: The frame to prepare.
//   - dst: The input tensor to populate.
//   - size: Square side of the model input.
//
// Returns:
//   - error: When the tensor is too small for the requested size.
func prepareInput(img image.Image, dst *ort.Tensor[float32], size int) error {
	data := dst.GetData()
	channelSize := size * size
	if len(data) < channelSize*3 {
		return errors.Errorf("input tensor holds %d floats, need %d", len(data), channelSize*3)
	}
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	img = resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
