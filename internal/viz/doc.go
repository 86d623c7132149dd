// Package viz renders controller runs in the terminal.
//
// [Plot] and [PlotStates] draw recorded channels with asciigraph. [Live] is a
// Bubble Tea model that steps a [loop.Session] in real time and shows the
// gait state, the drive command and scrolling angle and torque graphs.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - Faster/slower playback
//	Q     - Quit
package viz
