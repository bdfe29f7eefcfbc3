// Package config loads modelbake settings from YAML.
//
//	cache:
//	  expire_after_access: 3m
//	  max_entries: 1000
//	resolve:
//	  order: primary_first
//	  verbose: false
//	pack:
//	  root: ./pack
//	  watch: true
//	missing:
//	  keys: ["ns:lamp#lit"]
//	observe:
//	  service_name: modelbake
//	  logging: {enabled: true, level: info}
//
// Durations use Go duration syntax. Missing fields keep their defaults.
package config
