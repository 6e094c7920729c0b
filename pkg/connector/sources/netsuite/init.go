package netsuite

import (
	"github.com/syphon-data/syphon/pkg/config"
	"github.com/syphon-data/syphon/pkg/connector/core"
	"github.com/syphon-data/syphon/pkg/connector/registry"
)

func init() {
	registry.RegisterSource("netsuite", func(cfg *config.BaseConfig) (core.Source, error) {
		return NewSource(cfg)
	})
}
