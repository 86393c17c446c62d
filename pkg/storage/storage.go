// Package storage keeps uploaded images and rendered overlays.
package storage

import (
	"context"
	"errors"
	"fmt"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrInvalidName   = errors.New("invalid object name")
)

type IStorage interface {
	// Save stores data under name and returns the URL clients use to fetch it.
	Save(ctx context.Context, name string, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

type Config struct {
	Driver string

	// local
	Dir       string
	PublicURL string

	// s3
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

func New(cfg Config) (IStorage, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		return NewLocal(cfg.Dir, cfg.PublicURL)
	case DriverS3:
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
