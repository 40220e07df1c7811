package media

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted profile image in bytes.
const MaxImageSize = 5 << 20

var (
	// ErrUnsupportedImage is returned for content that is not JPEG, PNG or GIF.
	ErrUnsupportedImage = errors.New("only image files are allowed")
	// ErrImageTooLarge is returned for images over MaxImageSize.
	ErrImageTooLarge = fmt.Errorf("image exceeds %d bytes", MaxImageSize)
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// DetectImage sniffs data and returns its MIME type if it is an allowed image.
func DetectImage(data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: got %s", ErrUnsupportedImage, mt.String())
}
