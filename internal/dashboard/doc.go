// Package dashboard holds the reactive document behind the browser view.
//
// A Document owns the slider, the play/pause button, the date label and the
// data source of the scatter plot. Every mutation goes through the document,
// bumps its revision and is announced to subscribers as a Patch, which the
// websocket layer forwards to connected browsers.
//
// Playback is a two-state machine keyed on the button label: pressing Play
// registers one periodic callback on the Scheduler that steps the slider,
// pressing Pause removes it.
package dashboard
