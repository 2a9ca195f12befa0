package file

import (
	"context"
	"errors"
	"sync"

	attachments "respcare-monitor/internal/attachments/domain"
	"respcare-monitor/internal/storage/jsonfile"
)

type document struct {
	Photos  []attachments.Photo  `json:"photos"`
	Devices []attachments.Device `json:"devices"`
}

// Repository keeps photos and devices in one JSON document.
type Repository struct {
	mu   sync.Mutex
	path string
}

// NewRepository constructs a repository at path.
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// ListPhotos returns photos in insertion order.
func (r *Repository) ListPhotos(ctx context.Context) ([]attachments.Photo, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Photos, nil
}

// AddPhoto appends a photo.
func (r *Repository) AddPhoto(ctx context.Context, photo attachments.Photo) error {
	if err := photo.Validate(); err != nil {
		return err
	}
	return r.update(ctx, func(doc *document) {
		doc.Photos = append(doc.Photos, photo)
	})
}

// ListDevices returns devices in insertion order.
func (r *Repository) ListDevices(ctx context.Context) ([]attachments.Device, error) {
	doc, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Devices, nil
}

// SaveDevice inserts a device or replaces the one with the same id.
func (r *Repository) SaveDevice(ctx context.Context, device attachments.Device) error {
	if err := device.Validate(); err != nil {
		return err
	}
	if device.ID == "" {
		return errors.Join(attachments.ErrInvalidDevice, errors.New("empty id"))
	}
	return r.update(ctx, func(doc *document) {
		for i := range doc.Devices {
			if doc.Devices[i].ID == device.ID {
				doc.Devices[i] = device
				return
			}
		}
		doc.Devices = append(doc.Devices, device)
	})
}

func (r *Repository) read(ctx context.Context) (document, error) {
	if r == nil || r.path == "" {
		return document{}, errors.New("attachments repo: empty path")
	}
	if err := ctx.Err(); err != nil {
		return document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Repository) update(ctx context.Context, fn func(*document)) error {
	if r == nil || r.path == "" {
		return errors.New("attachments repo: empty path")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load()
	if err != nil {
		return err
	}
	fn(&doc)
	return jsonfile.WriteAtomic(r.path, doc, 0o600)
}

func (r *Repository) load() (document, error) {
	var doc document
	if _, err := jsonfile.Read(r.path, &doc); err != nil {
		return document{}, err
	}
	if doc.Photos == nil {
		doc.Photos = []attachments.Photo{}
	}
	if doc.Devices == nil {
		doc.Devices = []attachments.Device{}
	}
	return doc, nil
}

var _ attachments.Repository = (*Repository)(nil)
