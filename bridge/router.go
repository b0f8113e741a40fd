// ABOUTME: Operation router mediating between the live backend and synthetic data
// ABOUTME: Tries the live capability first, falls back to the dataset, never raises
package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harperreed/backhaul/models"
	"github.com/harperreed/backhaul/synthetic"
)

// Operation names used for journaling and as state-manager keys.
const (
	OpListClients      = "get_clients"
	OpGetClient        = "get_client"
	OpDisconnectClient = "disconnect_client"
	OpDeleteClient     = "delete_client"
	OpListFiles        = "get_files"
	OpDeleteFile       = "delete_file"
	OpVerifyFile       = "verify_file"
	OpRecordBackup     = "record_backup"
	OpListOperations   = "get_operations"
	OpServerStatus     = "get_server_status"
)

// ClientOps is the live backend's client capability.
type ClientOps interface {
	ListClients(ctx context.Context) ([]models.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (models.Client, error)
	DisconnectClient(ctx context.Context, id uuid.UUID) (models.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
}

// FileOps is the live backend's file and backup capability.
type FileOps interface {
	ListFiles(ctx context.Context, clientID *uuid.UUID) ([]models.File, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
	VerifyFile(ctx context.Context, id uuid.UUID) (models.File, error)
	RecordBackup(ctx context.Context, clientID uuid.UUID, fileDelta int) (models.BackupOperation, error)
	ListOperations(ctx context.Context, clientID *uuid.UUID) ([]models.BackupOperation, error)
}

// StatusOps is the live backend's server-status capability.
type StatusOps interface {
	ServerStatus(ctx context.Context) (models.ServerStatus, error)
}

// Backend bundles the live capabilities. Nil fields mean the backend lacks
// that capability and calls fall through to the synthetic dataset. Kind is
// declared once for the whole backend, not probed per call.
type Backend struct {
	Clients ClientOps
	Files   FileOps
	Status  StatusOps
	Kind    CallKind
}

// Recorder receives every envelope the router produces, in call order.
// Implemented by the activity journal.
type Recorder interface {
	Record(op string, env Envelope)
}

// RouterConfig wires a router. Store is required; everything else is
// optional.
type RouterConfig struct {
	Backend    *Backend
	Store      *synthetic.Store
	Dispatcher *Dispatcher
	Recorder   Recorder
	Logger     *slog.Logger
}

// Router presents one call surface regardless of whether data originates
// live or synthetic. Every method returns an Envelope and never an error:
// all failures are captured as envelope fields.
type Router struct {
	backend    *Backend
	store      *synthetic.Store
	dispatcher *Dispatcher
	recorder   Recorder
	logger     *slog.Logger
}

// NewRouter builds a router over the synthetic store and an optional live
// backend.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Store == nil {
		return nil, errors.New("router requires a synthetic store")
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = NewDispatcher(0, 0, cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		backend:    cfg.Backend,
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
	}, nil
}

// ListClients returns all clients.
func (r *Router) ListClients(ctx context.Context) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Clients != nil {
		live = func(ctx context.Context) (any, error) { return b.Clients.ListClients(ctx) }
	}
	return r.mediate(ctx, OpListClients, live, func() (any, error) {
		return r.store.ListClients(), nil
	})
}

// GetClient returns one client by id.
func (r *Router) GetClient(ctx context.Context, id uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Clients != nil {
		live = func(ctx context.Context) (any, error) { return b.Clients.GetClient(ctx, id) }
	}
	return r.mediate(ctx, OpGetClient, live, func() (any, error) {
		return r.store.GetClient(id)
	})
}

// DisconnectClient disconnects a client.
func (r *Router) DisconnectClient(ctx context.Context, id uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Clients != nil {
		live = func(ctx context.Context) (any, error) { return b.Clients.DisconnectClient(ctx, id) }
	}
	return r.mediate(ctx, OpDisconnectClient, live, func() (any, error) {
		return r.store.DisconnectClient(id)
	})
}

// DeleteClient removes a client and everything that references it.
func (r *Router) DeleteClient(ctx context.Context, id uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Clients != nil {
		live = func(ctx context.Context) (any, error) { return nil, b.Clients.DeleteClient(ctx, id) }
	}
	return r.mediate(ctx, OpDeleteClient, live, func() (any, error) {
		return nil, r.store.DeleteClient(id)
	})
}

// ListFiles returns files, optionally filtered to one client.
func (r *Router) ListFiles(ctx context.Context, clientID *uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Files != nil {
		live = func(ctx context.Context) (any, error) { return b.Files.ListFiles(ctx, clientID) }
	}
	return r.mediate(ctx, OpListFiles, live, func() (any, error) {
		return r.store.ListFiles(clientID)
	})
}

// DeleteFile removes one file.
func (r *Router) DeleteFile(ctx context.Context, id uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Files != nil {
		live = func(ctx context.Context) (any, error) { return nil, b.Files.DeleteFile(ctx, id) }
	}
	return r.mediate(ctx, OpDeleteFile, live, func() (any, error) {
		return nil, r.store.DeleteFile(id)
	})
}

// VerifyFile transitions a file to verified.
func (r *Router) VerifyFile(ctx context.Context, id uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Files != nil {
		live = func(ctx context.Context) (any, error) { return b.Files.VerifyFile(ctx, id) }
	}
	return r.mediate(ctx, OpVerifyFile, live, func() (any, error) {
		return r.store.VerifyFile(id)
	})
}

// RecordBackup registers a backup run for a client.
func (r *Router) RecordBackup(ctx context.Context, clientID uuid.UUID, fileDelta int) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Files != nil {
		live = func(ctx context.Context) (any, error) { return b.Files.RecordBackup(ctx, clientID, fileDelta) }
	}
	return r.mediate(ctx, OpRecordBackup, live, func() (any, error) {
		return r.store.RecordBackup(clientID, fileDelta)
	})
}

// ListOperations returns backup history, newest first.
func (r *Router) ListOperations(ctx context.Context, clientID *uuid.UUID) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Files != nil {
		live = func(ctx context.Context) (any, error) { return b.Files.ListOperations(ctx, clientID) }
	}
	return r.mediate(ctx, OpListOperations, live, func() (any, error) {
		return r.store.ListOperations(clientID)
	})
}

// ServerStatus returns the dashboard summary.
func (r *Router) ServerStatus(ctx context.Context) Envelope {
	var live liveCall
	if b := r.backend; b != nil && b.Status != nil {
		live = func(ctx context.Context) (any, error) { return b.Status.ServerStatus(ctx) }
	}
	return r.mediate(ctx, OpServerStatus, live, func() (any, error) {
		return r.store.ServerStatus(), nil
	})
}

type liveCall func(context.Context) (any, error)

// mediate is the routing policy: live wins when configured and healthy,
// anything else degrades to the synthetic dataset. Backend failures are
// logged and swallowed; only synthetic validation errors surface to the
// caller, as success=false envelopes.
func (r *Router) mediate(ctx context.Context, op string, live liveCall, fallback func() (any, error)) Envelope {
	if live != nil {
		v, err := r.dispatcher.Call(ctx, r.backend.Kind, live)
		if err == nil {
			env := normalize(ModeLive, v)
			r.record(op, env)
			return env
		}
		r.logger.Warn("live backend call failed, using synthetic data", "op", op, "error", err)
	}

	v, err := fallback()
	var env Envelope
	if err != nil {
		env = Fail(ModeSynthetic, err)
	} else {
		env = normalize(ModeSynthetic, v)
	}
	r.record(op, env)
	return env
}

func (r *Router) record(op string, env Envelope) {
	if r.recorder != nil {
		r.recorder.Record(op, env)
	}
}
