package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/config"
	errs "github.com/techagentng/imagegallery/errors"
)

const (
	thumbnailWidth  = 320
	thumbnailHeight = 320
)

var supportedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// ProcessedImage is an accepted upload and the thumbnail derived from it.
type ProcessedImage struct {
	Data        []byte
	ContentType string
	Extension   string
	Width       int
	Height      int
	Thumbnail   []byte
}

type MediaService interface {
	// Process sniffs, bounds and decodes an uploaded image and renders its
	// thumbnail. Rejections are ErrValidation.
	Process(data []byte) (*ProcessedImage, error)
}

type mediaService struct {
	Config *config.Config
}

func NewMediaService(conf *config.Config) MediaService {
	return &mediaService{
		Config: conf,
	}
}

func (m *mediaService) Process(data []byte) (*ProcessedImage, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(errs.ErrValidation, "image is empty")
	}
	if int64(len(data)) > m.Config.MaxUploadBytes {
		return nil, errors.Wrapf(errs.ErrValidation, "image is %d bytes, the limit is %d", len(data), m.Config.MaxUploadBytes)
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), supportedImageTypes...) {
		return nil, errors.Wrapf(errs.ErrValidation, "unsupported file type %s", mtype.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(errs.ErrValidation, "cannot decode image: %v", err)
	}

	thumb := imaging.Fit(img, thumbnailWidth, thumbnailHeight, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, errors.Wrap(err, "encode thumbnail")
	}

	bounds := img.Bounds()
	return &ProcessedImage{
		Data:        data,
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Thumbnail:   buf.Bytes(),
	}, nil
}

func generateUniqueFilename(extension string) string {
	timestamp := time.Now().UnixNano()
	randomUUID := uuid.New()
	return fmt.Sprintf("%d_%s%s", timestamp, randomUUID, extension)
}
