package attachments

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidPhoto is returned for photos missing required fields.
	ErrInvalidPhoto = errors.New("attachments: invalid photo")
	// ErrInvalidDevice is returned for devices missing required fields.
	ErrInvalidDevice = errors.New("attachments: invalid device")
)

// MaxPhotoBytes bounds the decoded size of a stored photo.
const MaxPhotoBytes = 4 << 20

// Photo is an image attached to the patient record. The bytes are opaque.
type Photo struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	Note        string    `json:"note,omitempty"`
	ContentType string    `json:"contentType"`
	Data        string    `json:"data"`
	TakenAt     time.Time `json:"takenAt"`
}

// Validate checks required fields and the base64 payload.
func (p Photo) Validate() error {
	if p.PatientID == "" {
		return errors.Join(ErrInvalidPhoto, errors.New("empty patient id"))
	}
	if !strings.HasPrefix(p.ContentType, "image/") {
		return errors.Join(ErrInvalidPhoto, errors.New("content type must be image/*"))
	}
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return errors.Join(ErrInvalidPhoto, errors.New("data must be base64"))
	}
	if len(raw) == 0 || len(raw) > MaxPhotoBytes {
		return errors.Join(ErrInvalidPhoto, errors.New("data size out of range"))
	}
	return nil
}

// Device is a piece of monitoring equipment used by the patient.
type Device struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	Name      string    `json:"name"`
	Model     string    `json:"model,omitempty"`
	Serial    string    `json:"serial,omitempty"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks required fields.
func (d Device) Validate() error {
	if d.PatientID == "" {
		return errors.Join(ErrInvalidDevice, errors.New("empty patient id"))
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.Join(ErrInvalidDevice, errors.New("empty name"))
	}
	return nil
}

// Repository stores photos and devices.
type Repository interface {
	ListPhotos(ctx context.Context) ([]Photo, error)
	AddPhoto(ctx context.Context, photo Photo) error
	ListDevices(ctx context.Context) ([]Device, error)
	SaveDevice(ctx context.Context, device Device) error
}
