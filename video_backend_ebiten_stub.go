//go:build headless

package main

func NewEbitenOutput(MachineControl) (VideoOutput, error) {
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   "built with the headless tag",
	}
}
