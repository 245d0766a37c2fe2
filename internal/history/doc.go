// Package history journals the lines exchanged with binding devices.
//
// Every line a binding reads or writes (and every channel error) is stored
// in the SQLite table binding_io. The API serves the most recent entries per
// binding.
//
// Writes go through a Recorder, which implements devfile.Recorder: bindings
// hand it events from their device goroutines without blocking, and a single
// writer goroutine inserts them. When the queue is full, events are dropped
// and counted rather than stalling device I/O.
//
//	repo := history.NewSQLiteRepository(db.DB)
//	rec := history.NewRecorder(repo, history.RecorderOptions{Logger: logger})
//	defer rec.Close()
//	engine := devfile.NewEngine(devfile.EngineOptions{Recorder: rec})
package history
