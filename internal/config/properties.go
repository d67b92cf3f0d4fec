package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Properties holds the global properties consulted per request. Values are
// read from an optional YAML file and published as an immutable snapshot, so
// readers never lock; Watch swaps in a new snapshot when the file changes.
type Properties struct {
	v        *viper.Viper
	snapshot atomic.Pointer[map[string]string]
	logger   zerolog.Logger
	onReload func()
}

// NewProperties loads path, or starts empty when path is "".
func NewProperties(path string, logger zerolog.Logger) (*Properties, error) {
	p := &Properties{logger: logger}
	empty := map[string]string{}
	p.snapshot.Store(&empty)
	if path == "" {
		return p, nil
	}

	p.v = viper.New()
	p.v.SetConfigFile(path)
	p.v.SetConfigType("yaml")
	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read global properties %s: %w", path, err)
	}
	p.publish()
	return p, nil
}

// Watch reloads the snapshot whenever the properties file changes. onReload,
// when set, runs after each reload.
func (p *Properties) Watch(onReload func()) {
	if p.v == nil {
		return
	}
	p.onReload = onReload
	p.v.OnConfigChange(func(e fsnotify.Event) {
		p.logger.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("global properties changed")
		p.publish()
		if p.onReload != nil {
			p.onReload()
		}
	})
	p.v.WatchConfig()
}

func (p *Properties) publish() {
	next := make(map[string]string)
	for _, key := range p.v.AllKeys() {
		next[key] = p.v.GetString(key)
	}
	p.snapshot.Store(&next)
	p.logger.Debug().Int("count", len(next)).Msg("global properties loaded")
}

// Get returns a property value.
func (p *Properties) Get(key string) (string, bool) {
	m := *p.snapshot.Load()
	v, ok := m[strings.ToLower(key)]
	return v, ok
}

// Int returns a property parsed as an integer; false when unset or not numeric.
func (p *Properties) Int(key string) (int, bool) {
	s, ok := p.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set replaces one property in a new snapshot.
func (p *Properties) Set(key, value string) {
	for {
		cur := p.snapshot.Load()
		next := make(map[string]string, len(*cur)+1)
		for k, v := range *cur {
			next[k] = v
		}
		next[strings.ToLower(key)] = value
		if p.snapshot.CompareAndSwap(cur, &next) {
			return
		}
	}
}
