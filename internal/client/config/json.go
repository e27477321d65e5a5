package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/flagx"
	"github.com/dmitrijs2005/docsafe/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the deadline either as a string like
// "10s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	PreviewDeadline    timex.Duration `json:"preview_deadline"`
}

// parseJson overlays Config with values loaded from a JSON file whose path
// is given via -c or -config. Missing path means no overlay. Read or parse
// errors panic; the caller decides whether to recover.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.PreviewDeadline.Duration > 0 {
		cfg.PreviewDeadline = time.Duration(jc.PreviewDeadline.Duration)
	}
}
