// Package viz hosts a running simulation in the terminal using Bubble Tea.
//
// [Model] drives a scheduler once per tick and draws the simulation's
// bodies on a braille [Canvas], with trails, a stats panel and an
// asciigraph history of one variable.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	Tab   - Cycle the graphed variable
//	C     - Clear trails
//	X/Y/Z - Rotate the view
//	+/-   - Zoom
//	?     - Show help
package viz
