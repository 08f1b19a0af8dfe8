// Package seed loads demo parlors from a YAML file into the store.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/parlor"
)

// File is the layout of a seed file.
type File struct {
	Parlors []Parlor `yaml:"parlors"`
}

// Parlor is one seeded parlor. When OwnerPassword is set an owner account
// with the parlor's id is created as well.
type Parlor struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Address        string `yaml:"address"`
	OwnerName      string `yaml:"owner_name"`
	OwnerEmail     string `yaml:"owner_email"`
	OwnerPassword  string `yaml:"owner_password"`
	parlor.Profile `yaml:",inline"`
	Rooms          []Room `yaml:"rooms"`
}

// Room is one seeded room. A missing can_play_immediately follows the
// waiting count.
type Room struct {
	ID                 string `yaml:"id"`
	RankName           string `yaml:"rank_name"`
	WaitingCount       int    `yaml:"waiting_count"`
	TableCount         int    `yaml:"table_count"`
	Status             string `yaml:"status"`
	CanPlayImmediately *bool  `yaml:"can_play_immediately"`
}

func (r Room) toRoom() parlor.Room {
	room := parlor.Room{
		ID:           r.ID,
		RankName:     r.RankName,
		WaitingCount: r.WaitingCount,
		TableCount:   r.TableCount,
		Status:       parlor.RoomStatus(r.Status),
	}
	if r.CanPlayImmediately != nil {
		room.CanPlayImmediately = *r.CanPlayImmediately
	} else {
		room.CanPlayImmediately = r.WaitingCount == 0
	}
	return room
}

// AccountCreator attaches an owner login to a parlor.
type AccountCreator interface {
	CreateAccount(ctx context.Context, parlorID, email, password, ownerName string) error
}

// Load reads a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// Apply upserts every parlor with its rooms. Re-applying a file is safe:
// documents are merged and existing owner accounts are kept.
func Apply(ctx context.Context, f *File, parlors *parlor.Service, accounts AccountCreator) error {
	for _, p := range f.Parlors {
		rooms := make([]parlor.Room, 0, len(p.Rooms))
		for _, r := range p.Rooms {
			rooms = append(rooms, r.toRoom())
		}
		reg := parlor.Registration{
			Name:      p.Name,
			Address:   p.Address,
			OwnerName: p.OwnerName,
			OwnerMail: p.OwnerEmail,
			Profile:   p.Profile,
		}
		if err := parlors.SaveParlor(ctx, p.ID, reg, rooms); err != nil {
			return fmt.Errorf("failed to seed parlor %s: %w", p.ID, err)
		}

		log := logrus.WithFields(logrus.Fields{"parlor_id": p.ID, "rooms": len(rooms)})
		if p.OwnerPassword != "" && accounts != nil {
			err := accounts.CreateAccount(ctx, p.ID, p.OwnerEmail, p.OwnerPassword, p.OwnerName)
			switch {
			case apperr.Is(err, apperr.KindConflict):
				log.Debug("owner account already exists")
			case err != nil:
				return fmt.Errorf("failed to seed owner of %s: %w", p.ID, err)
			default:
				log = log.WithField("owner", p.OwnerEmail)
			}
		}
		log.Info("seeded parlor")
	}
	return nil
}
