package client

import (
	"context"

	"wedding-site/internal/broadcast"
	"wedding-site/internal/media"
	"wedding-site/internal/models"
)

// Edit applies fn to the local configuration. Edits stay local until Save.
func (c *Client) Edit(fn func(cfg *models.Configuration)) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	_, _, err := c.update(func(cfg *models.Configuration) error {
		fn(cfg)
		return nil
	})
	return err
}

// Save overwrites the remote document with the local configuration.
func (c *Client) Save(ctx context.Context) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	before, after, err := c.update(func(cfg *models.Configuration) error {
		cfg.LastSaved = models.Timestamp(c.now())
		return nil
	})
	if err != nil {
		return err
	}
	return c.settle("Save", before, after, c.persist(ctx, after), "Changes saved")
}

// Reset overwrites the remote document with the defaults. confirmed must be
// true.
func (c *Client) Reset(ctx context.Context, confirmed bool) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	before, after, err := c.update(func(cfg *models.Configuration) error {
		*cfg = *c.defaults.Clone()
		cfg.LastSaved = models.Timestamp(c.now())
		return nil
	})
	if err != nil {
		return err
	}
	return c.settle("Reset", before, after, c.persist(ctx, after), "Site reset to defaults")
}

// Broadcast publishes a fresh sync token so every other viewer reloads once.
// Only the token field is written.
func (c *Client) Broadcast(ctx context.Context) (string, error) {
	if err := c.requirePrivilege(); err != nil {
		return "", err
	}
	token := broadcast.NewToken(c.now())
	before, after, err := c.update(func(cfg *models.Configuration) error {
		cfg.SyncID = token
		return nil
	})
	if err != nil {
		return "", err
	}
	err = c.remote.Patch(ctx, models.Patch{models.FieldSyncID: token})
	return token, c.settle("Broadcast", before, after, err, "Update broadcast to all viewers")
}

// AddGalleryImage adds an image reference to the local gallery. Inline data
// URLs must fit the configured size bound.
func (c *Client) AddGalleryImage(src string) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	if err := media.CheckDataURL(src, c.maxImageBytes()); err != nil {
		return err
	}
	_, _, err := c.update(func(cfg *models.Configuration) error {
		cfg.Gallery = append(cfg.Gallery, src)
		return nil
	})
	return err
}

// RemoveGalleryImage drops the image at index i from the local gallery.
func (c *Client) RemoveGalleryImage(i int) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	_, _, err := c.update(func(cfg *models.Configuration) error {
		if i >= 0 && i < len(cfg.Gallery) {
			cfg.Gallery = append(cfg.Gallery[:i], cfg.Gallery[i+1:]...)
		}
		return nil
	})
	return err
}

func (c *Client) maxImageBytes() int {
	if c.maxImage > 0 {
		return c.maxImage
	}
	return media.DefaultMaxImageBytes
}
