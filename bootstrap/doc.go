// Package bootstrap wires the configuration, logger, indicator engine and
// result store shared by the command line tools.
//
// Usage:
//
//	app, err := bootstrap.NewApp(bootstrap.Options{ConfigPath: path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown()
//
//	matcher, _, err := app.LoadIndicators()
package bootstrap
