package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

type SubmitReadingRequest struct {
	MeterID snowflake.ID
	Reading int64
}

type Service interface {
	// SubmitReading records a new counter value. Readings are monotonic:
	// a value below the current counter is rejected.
	SubmitReading(ctx context.Context, actor persondomain.Person, req SubmitReadingRequest) (ReadingUpdate, error)
	History(ctx context.Context, actor persondomain.Person, meterID snowflake.ID) ([]*ReadingUpdate, error)
}

var (
	ErrMeterNotFound       = errors.New("meter_not_found")
	ErrReadingNotMonotonic = errors.New("reading_not_monotonic")
)
