// Package config loads storefront.json.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "readTimeout": "15s",
//	    "writeTimeout": "15s",
//	    "shutdownTimeout": "10s",
//	    "allowedOrigins": ["https://admin.example.com"]
//	  },
//	  "storage": {
//	    "driver": "sqlite",
//	    "sqlitePath": "data/storefront.db"
//	  },
//	  "export": {
//	    "bucket": "storefront-snapshots",
//	    "prefix": "v1",
//	    "region": "eu-west-1"
//	  },
//	  "events": {
//	    "natsURL": "nats://127.0.0.1:4222",
//	    "subjectPrefix": "storefront"
//	  },
//	  "components": { "dir": "components" },
//	  "logging": { "level": "info", "format": "json" },
//	  "metrics": { "enabled": true },
//	  "tracing": { "enabled": true, "tracerName": "storefront" }
//	}
//
// STOREFRONT_ADDR, STOREFRONT_STORAGE, STOREFRONT_SQLITE_PATH,
// STOREFRONT_NATS_URL and STOREFRONT_LOG_LEVEL override the file.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
