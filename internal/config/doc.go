// Package config provides configuration parsing for loom.
//
// The configuration is stored in loom.json in the working directory. Every
// field is optional; missing fields take the defaults below.
//
//	{
//	  "scheduler": {
//	    "yieldThreshold": "1ms",
//	    "sliceBudget": "16ms",
//	    "debug": false
//	  },
//	  "server": {
//	    "addr": ":8080",
//	    "readTimeout": "10s",
//	    "app": "counter"
//	  },
//	  "metrics": {
//	    "namespace": "loom",
//	    "path": "/metrics"
//	  },
//	  "snapshot": {
//	    "bucket": "my-bucket",
//	    "prefix": "snapshots/",
//	    "region": "us-east-1"
//	  },
//	  "log": {
//	    "level": "info"
//	  }
//	}
//
// Durations use time.ParseDuration syntax.
package config
