package client

import (
	"context"

	"wedding-site/internal/guests"
	"wedding-site/internal/models"
)

// SubmitRSVP validates form, appends the new entry locally and then
// atomically appends it to the remote guest list. The local entry stays
// when the append fails unless rollback is enabled.
func (c *Client) SubmitRSVP(ctx context.Context, form guests.Form) (models.GuestEntry, error) {
	if err := form.Validate(); err != nil {
		return models.GuestEntry{}, err
	}
	entry := form.Entry(c.now())

	before, after, err := c.update(func(cfg *models.Configuration) error {
		cfg.GuestList = guests.Append(cfg.GuestList, entry)
		return nil
	})
	if err != nil {
		return models.GuestEntry{}, err
	}
	err = c.remote.Append(ctx, models.FieldGuestList, entry)
	return entry, c.settle("RSVP", before, after, err, "Thank you for your RSVP!")
}

// AddOrUpdateGuest applies an admin form to the local list. With a
// matchTimestamp the entry carrying it is updated, otherwise a new entry is
// added. Nothing is sent until Save.
func (c *Client) AddOrUpdateGuest(form guests.Form, matchTimestamp string) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	_, _, err := c.update(func(cfg *models.Configuration) error {
		list, err := guests.Upsert(cfg.GuestList, form, matchTimestamp, c.now())
		if err != nil {
			return err
		}
		cfg.GuestList = list
		return nil
	})
	return err
}

// SetAdminStatus records the admin's decision on target and saves the whole
// configuration right away.
func (c *Client) SetAdminStatus(ctx context.Context, target models.GuestEntry, status models.AdminStatus) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	before, after, err := c.update(func(cfg *models.Configuration) error {
		list, err := guests.SetAdminStatus(cfg.GuestList, target, status)
		if err != nil {
			return err
		}
		cfg.GuestList = list
		cfg.LastSaved = models.Timestamp(c.now())
		return nil
	})
	if err != nil {
		return err
	}
	return c.settle("Status update", before, after, c.persist(ctx, after), "")
}

// RejectIndividual removes name from target's party.
func (c *Client) RejectIndividual(ctx context.Context, target models.GuestEntry, name string) error {
	return c.patchGuests(ctx, "Reject guest", func(list []models.GuestEntry) []models.GuestEntry {
		return guests.RejectIndividual(list, target, name)
	})
}

// RestoreIndividual puts a rejected name back into target's party.
func (c *Client) RestoreIndividual(ctx context.Context, target models.GuestEntry, name string) error {
	return c.patchGuests(ctx, "Restore guest", func(list []models.GuestEntry) []models.GuestEntry {
		return guests.RestoreIndividual(list, target, name)
	})
}

// DeleteGuest removes target from the guest list. confirmed must be true.
func (c *Client) DeleteGuest(ctx context.Context, target models.GuestEntry, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	return c.patchGuests(ctx, "Delete guest", func(list []models.GuestEntry) []models.GuestEntry {
		return guests.Delete(list, target)
	})
}

// Stats aggregates the local guest list.
func (c *Client) Stats() guests.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return guests.ComputeStats(c.local.GuestList)
}

// patchGuests applies fn locally at once, then to the remote guest list,
// which may hold RSVPs no partial merge has delivered yet. The result is
// installed locally and patched back.
func (c *Client) patchGuests(ctx context.Context, op string, fn func([]models.GuestEntry) []models.GuestEntry) error {
	if err := c.requirePrivilege(); err != nil {
		return err
	}
	before, after, err := c.update(func(cfg *models.Configuration) error {
		cfg.GuestList = fn(cfg.GuestList)
		return nil
	})
	if err != nil {
		return err
	}
	list, err := remoteList[models.GuestEntry](ctx, c.remote, models.FieldGuestList)
	if err == nil {
		list = fn(list)
		if _, after, err = c.update(func(cfg *models.Configuration) error {
			cfg.GuestList = list
			return nil
		}); err == nil {
			err = c.remote.Patch(ctx, models.Patch{models.FieldGuestList: list})
		}
	}
	return c.settle(op, before, after, err, "")
}

// persist writes cfg as the whole remote document.
func (c *Client) persist(ctx context.Context, cfg *models.Configuration) error {
	c.mu.Lock()
	c.state.Saving = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.state.Saving = false
		c.mu.Unlock()
	}()
	return c.remote.Write(ctx, cfg)
}
