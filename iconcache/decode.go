package iconcache

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"

	"github.com/nexusfs/engine/types"
)

// DecodeFunc produces a raw RGBA texture for key. It is expected to block —
// it always runs on a background goroutine spawned by the cache, never on
// the caller of Request/GetOrDefault. The cache itself performs the BGRA
// swizzle afterward, so implementations need not worry about channel order.
type DecodeFunc func(key types.IconKey) (Texture, error)

// DecodeImageBytes decodes a PNG or JPEG byte slice into an RGBA texture.
// No vector (SVG) decoder is wired: none of the available third-party
// stacks in this codebase's dependency surface provide one, so this one
// corner of the decode pipeline is stdlib image, the natural fit for
// raster formats.
func DecodeImageBytes(data []byte) (Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Texture{}, errors.Wrap(err, "decode icon image")
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}

	return Texture{Width: w, Height: h, Pixels: rgba.Pix}, nil
}
