// Package config loads the YAML configuration for the calltrack CLI.
//
// # Overview
//
// The config package owns the file format only. It maps the parsed file
// onto the configurations the components actually consume: the store
// section becomes a stores.Config, the record section becomes recorder
// overrides, and the logging, metrics and events sections overlay the
// telemetry defaults.
//
// # Loading
//
// Load with an explicit path requires the file to exist. With an empty
// path it searches calltrack.yaml and calltrack.yml in the working
// directory and falls back to the defaults when neither is present. A
// partial file is fine: absent keys keep their default values, and
// unknown keys are rejected so typos fail loudly.
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//
//	storeCfg := cfg.StoreOptions()
//	rec, err := instrument.New(ctx, instrument.Options{
//	    Store:     &storeCfg,
//	    Overrides: cfg.Overrides(),
//	})
//
// # File Format
//
//	store:
//	  dir: logs
//	  base_name: log
//	  max_bytes: 104857600
//	  wal: true
//	  auto_close: false
//
//	record:
//	  level: LOG
//	  error_level: ERROR
//	  tag: payments
//	  disable: [gpu, host]
//
//	logging:
//	  level: info
//	  format: console
//	  output: stderr
//	  enable_caller: false
//
//	metrics:
//	  enabled: true
//	  listen_address: ":9090"
//	  path: /metrics
//
//	events:
//	  enabled: true
//	  buffer_size: 1000
//	  flush_interval: 5s
//	  async: true
//
// Durations use Go syntax ("250ms", "5s"). Categories listed under
// record.disable are removed from the store schema entirely, exactly as
// a #key:false doc tag removes them per function.
package config
