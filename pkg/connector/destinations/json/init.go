package json

import (
	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/connector/registry"
)

func init() {
	registry.RegisterDestination("jsonfile", func(cfg *config.BaseConfig) (core.Destination, error) {
		return NewDestination(cfg)
	})
}
