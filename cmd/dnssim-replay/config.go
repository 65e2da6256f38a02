package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// config is the toml-decoded shape of a replay run, grounded on
// cmd/routedns/config.go's struct-per-concern layout and kebab-case tag
// convention, pared down to what a single-target simulator needs instead
// of a resolver/group/router DAG.
type config struct {
	Title string

	Target target
	Admin  admin

	Transport     string `toml:"transport"`      // "udp" (default) or "tcp"
	MaxClients    int    `toml:"max-clients"`    // client table size
	TimeoutMs     int    `toml:"timeout-ms"`     // per-request answer timeout
	IdleTimeoutMs int    `toml:"idle-timeout-ms"` // pooled TCP connection idle timeout

	Sources []string `toml:"sources"` // source addresses to round-robin

	Input string `toml:"input"` // path to the ndjson ingest file, "-" for stdin
}

type target struct {
	Host string
	Port int
}

type admin struct {
	Address string // e.g. "127.0.0.1:9520"; empty disables the admin server
}

// loadConfig reads and concatenates one or more toml files, the same
// multi-file-as-one-document behavior cmd/routedns/config.go's loadConfig
// implements.
func loadConfig(names ...string) (config, error) {
	b := new(bytes.Buffer)
	var c config
	for _, name := range names {
		if err := loadFile(b, name); err != nil {
			return c, err
		}
		b.WriteString("\n")
	}
	if _, err := toml.DecodeReader(b, &c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func loadFile(w io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
