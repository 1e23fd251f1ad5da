package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

type MeterSpec struct {
	Number      string                `json:"number"`
	Type        meterdomain.MeterType `json:"type"`
	Reading     int64                 `json:"reading"`
	CostPerUnit float64               `json:"cost_per_unit"`
	BaseCost    float64               `json:"base_cost"`
}

type CostSpec struct {
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	Amount       float64                  `json:"amount"`
	Distribution *costdomain.Distribution `json:"distribution,omitempty"`
	Frequency    costdomain.Frequency     `json:"frequency"`
}

type FlatSpec struct {
	Location     string      `json:"location"`
	Rooms        int         `json:"rooms"`
	SquareMeters int         `json:"square_meters"`
	Residents    int         `json:"residents"`
	ColdRent     float64     `json:"cold_rent"`
	WarmRent     float64     `json:"warm_rent"`
	Meters       []MeterSpec `json:"meters"`
	Costs        []CostSpec  `json:"costs"`
}

type CreateBuildingRequest struct {
	Street  string     `json:"street"`
	City    string     `json:"city"`
	State   string     `json:"state"`
	Zip     string     `json:"zip"`
	Country string     `json:"country"`
	Flats   []FlatSpec `json:"flats"`
	Costs   []CostSpec `json:"costs"`
}

// ModifyBuildingRequest updates the address and can grow the building:
// Flats and Costs are appended, never replaced.
type ModifyBuildingRequest struct {
	Street  *string    `json:"street"`
	City    *string    `json:"city"`
	State   *string    `json:"state"`
	Zip     *string    `json:"zip"`
	Country *string    `json:"country"`
	Flats   []FlatSpec `json:"flats"`
	Costs   []CostSpec `json:"costs"`
}

type FlatDetail struct {
	Flat   flatdomain.Flat              `json:"flat"`
	Tenant *persondomain.Person         `json:"tenant,omitempty"`
	Meters []*meterdomain.Meter         `json:"meters"`
	Costs  []*costdomain.AdditionalCost `json:"costs"`
}

type BuildingView struct {
	Building Building                     `json:"building"`
	Flats    []FlatDetail                 `json:"flats"`
	Costs    []*costdomain.AdditionalCost `json:"costs"`
}

type Service interface {
	Create(ctx context.Context, actor persondomain.Person, req CreateBuildingRequest) (BuildingView, error)
	List(ctx context.Context, actor persondomain.Person) ([]BuildingView, error)
	Get(ctx context.Context, actor persondomain.Person, id snowflake.ID) (BuildingView, error)
	Modify(ctx context.Context, actor persondomain.Person, id snowflake.ID, req ModifyBuildingRequest) (Building, error)
	// Delete removes the building together with its flats, meters,
	// reading history, operating costs and invoices.
	Delete(ctx context.Context, actor persondomain.Person, id snowflake.ID) error
}

var (
	ErrBuildingNotFound = errors.New("building_not_found")
	ErrBuildingExists   = errors.New("building_exists")
	ErrMeterNumberTaken = errors.New("meter_number_taken")
	ErrInvalidAddress   = errors.New("invalid_address")
	ErrInvalidFlat      = errors.New("invalid_flat")
	ErrInvalidMeter     = errors.New("invalid_meter")
	ErrInvalidCost      = errors.New("invalid_cost")
)
