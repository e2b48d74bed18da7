package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

// LegacySource exposes the secondary legacy snapshot and the import marker.
// The local cache implements it.
type LegacySource interface {
	LegacyAccounts(ctx context.Context) ([]SecondaryAccount, error)
	ImportDone(ctx context.Context) (bool, error)
	MarkImportDone(ctx context.Context) error
}

// Importer copies legacy secondary records into the canonical store exactly
// once. After a successful run the dual-read path is dead.
type Importer struct {
	dst record.Store
	src LegacySource
	log *zap.Logger
}

// NewImporter constructs the one-time importer.
func NewImporter(dst record.Store, src LegacySource, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{dst: dst, src: src, log: log}
}

// Run performs the import if it has not run before. Records whose username
// already exists in the canonical store are skipped: the primary store wins.
func (im *Importer) Run(ctx context.Context) error {
	done, err := im.src.ImportDone(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: import marker: %w", err)
	}
	if done {
		return nil
	}

	legacy, err := im.src.LegacyAccounts(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: read legacy: %w", err)
	}

	var imported, skipped int
	for _, sec := range legacy {
		a := sec.Canonical()
		_, err := im.dst.GetByUsername(ctx, a.Username)
		switch {
		case err == nil:
			skipped++
			continue
		case errors.Is(err, errs.ErrNotFound):
			// fall through to create
		default:
			return fmt.Errorf("reconcile: lookup %q: %w", a.Username, err)
		}

		if _, err := im.dst.Create(ctx, newAccountFrom(a)); err != nil {
			if errors.Is(err, errs.ErrDuplicateUsername) || errors.Is(err, errs.ErrDuplicateEmail) {
				skipped++
				continue
			}
			return fmt.Errorf("reconcile: import %q: %w", a.Username, err)
		}
		imported++
	}

	if err := im.src.MarkImportDone(ctx); err != nil {
		return fmt.Errorf("reconcile: mark done: %w", err)
	}
	im.log.Info("legacy import complete",
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
	)
	return nil
}

func newAccountFrom(a model.Account) record.NewAccount {
	return record.NewAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Credential: a.Credential,
		Tier:       a.Tier,
		IsActive:   a.IsActive,
		CreatedAt:  a.CreatedAt,
	}
}
