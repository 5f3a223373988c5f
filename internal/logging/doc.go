// Package logging builds the zap logger shared by the CLI and the service.
//
// Production mode writes JSON lines, development mode a colored console format. Logs go to
// stderr unless OutputPaths says otherwise.
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	defer logger.Sync()
//	log := logger.Named("archive")
package logging
