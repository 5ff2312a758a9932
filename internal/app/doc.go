// Package app wires the collections dashboard together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML, .env and the environment
//	2. Initialize logging and OpenTelemetry
//	3. Build the batch source (Google Sheets or a local workbook)
//	4. Build the aggregator, snapshot cache and dashboard service
//	5. Build auth, chat, the WebSocket hub and the refresh scheduler
//	6. Set up HTTP handlers and middleware
//	7. Start the HTTP server and background jobs
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. In-flight requests complete, the scheduler
// waits for a running refresh, WebSocket clients are closed and telemetry is
// flushed. The package never calls os.Exit.
package app
