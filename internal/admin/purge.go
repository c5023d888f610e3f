// Package admin implements destructive administrative operations, currently
// the full-tenant account purge.
package admin

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mkravets/salondesk/internal/localstore"
	"github.com/mkravets/salondesk/internal/model"
	"github.com/mkravets/salondesk/internal/remote"
)

// MaxBatch caps how many documents one purge batch may delete. Collections
// larger than this are drained in repeated bounded batches.
const MaxBatch = 200

// Remote collections holding account data outside the entity tables.
const (
	collectionUsers       = "users"
	collectionCredentials = "credentials"
)

// Revoker invalidates the local session once the purge completes.
// Implemented by tenant.Session.
type Revoker interface {
	SignOut() error
}

// Purger deletes every trace of a tenant: the user and credential-mapping
// documents, all entity collections, the local replica rows, and finally
// the session itself.
type Purger struct {
	local   *localstore.Store
	remote  remote.Store
	revoker Revoker
	logger  *log.Logger
}

// NewPurger creates a purger. logger may be nil.
func NewPurger(local *localstore.Store, rs remote.Store, revoker Revoker, logger *log.Logger) *Purger {
	if logger == nil {
		logger = log.New(os.Stderr, "[purge] ", log.LstdFlags)
	}
	return &Purger{local: local, remote: rs, revoker: revoker, logger: logger}
}

// Purge removes all data belonging to businessID. Remote collections are
// drained first in bounded batches, then the local replica, then the
// session credentials are revoked. The operation is not transactional: a
// failure part-way leaves already-purged collections gone.
func (p *Purger) Purge(ctx context.Context, businessID string) error {
	if businessID == "" {
		return fmt.Errorf("businessID cannot be empty")
	}

	collections := append([]string{collectionUsers, collectionCredentials}, model.Collections()...)

	for _, collection := range collections {
		total := 0
		for {
			deleted, err := p.remote.DeleteBusiness(ctx, collection, businessID, MaxBatch)
			if err != nil {
				return fmt.Errorf("failed to purge remote %s: %w", collection, err)
			}
			total += deleted
			// The store may delete fewer than the limit while documents
			// remain; only an empty batch means the collection is drained.
			if deleted == 0 {
				break
			}
		}
		p.logger.Printf("purged %d remote documents from %s", total, collection)
	}

	for _, table := range model.Collections() {
		removed, err := p.local.PurgeBusiness(ctx, table, businessID)
		if err != nil {
			return fmt.Errorf("failed to purge local %s: %w", table, err)
		}
		if removed > 0 {
			p.logger.Printf("purged %d local rows from %s", removed, table)
		}
	}

	if p.revoker != nil {
		if err := p.revoker.SignOut(); err != nil {
			return fmt.Errorf("failed to revoke credentials: %w", err)
		}
	}

	p.logger.Printf("account %s purged", businessID)
	return nil
}
