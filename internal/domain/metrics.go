package domain

import "context"

type Unit string

const (
	UnitCount     Unit = "Count"
	UnitMegabytes Unit = "Megabytes"
	UnitSeconds   Unit = "Seconds"
)

type Dimension struct {
	Name  string
	Value string
}

type Metric struct {
	Name       string
	Value      float64
	Unit       Unit
	Dimensions []Dimension
}

type Metrics interface {
	Put(ctx context.Context, metrics []Metric) error
}
