// Package app wires the soilhub web service together: configuration,
// logging, telemetry, the dataset registry, the analysis services and the
// HTTP router.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, the YAML file and SOIL_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Resolve paths and load the dataset registry
//	4. Load the taxonomy and create the services
//	5. Start the notification hub and subscribe it to the services
//	6. Set up middleware, handlers, /ws and the /metrics endpoint
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM and then drains in-flight requests
// within the configured shutdown timeout. Websocket clients are closed
// with a going-away frame. Errors are returned to the
// caller; the package never calls os.Exit.
package app
