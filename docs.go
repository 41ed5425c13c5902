// Package logroute applies declarative logging configuration, in the
// style of dictConfig documents, to a process-wide logging facility built
// on zap cores.
//
// A configuration document declares named formatters (message templates),
// named handlers (severity-filtered destinations: console streams,
// rotating files, or bridge sinks into external middleware), and routes
// dotted logger names to handler sets with a required root fallback.
// Documents are loaded from JSON or YAML, validated strictly, and applied
// once at startup:
//
//	cfg, err := logroute.Load("logging.json")
//	if err != nil {
//		return err
//	}
//	if err := logroute.Configure(cfg, logroute.WithBridge("rosout", sink)); err != nil {
//		return err
//	}
//	log := logroute.Get("game.session")
//	log.Infof("session %s started", id)
//
// Handles obtained before Configure, including at package init, are
// re-pointed in place when the configuration is applied. A broken
// document never half-applies: loading and applying fail with
// [ConfigError] or [DestinationError] so startup can abort instead of
// running with a silent log pipeline.
//
// Full documentation is available at:
// https://pkg.go.dev/github.com/robokit/logroute
package logroute
