// Package voice adapts platform speech events to the assistant.
//
// The platform (a browser tab) owns the actual recognition and synthesis
// engines. This package models what crosses the boundary:
//
//   - A Recognizer turns the platform's start/result/error/end callbacks into
//     an explicit state machine (idle, listening, error) and delivers exactly
//     the finalized transcripts to a handler.
//   - An Utterance is a playback request; a Speaker hands it to the platform
//     without waiting for playback to finish.
//
// # Usage
//
//	rec := voice.NewRecognizer(
//	    voice.WithEventSink(func(ev voice.Event) { send(ev) }),
//	    voice.WithTranscriptHandler(func(text string) {
//	        go dispatcher.HandleUtterance(ctx, text)
//	    }),
//	)
//
//	rec.Start()                        // user pressed the mic button
//	rec.Result("I have a", false)      // interim, shown then replaced
//	rec.Result("I have a fever", true) // final, handed to the dispatcher
//	rec.End()                          // platform ended the session
package voice
