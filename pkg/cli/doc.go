// Package cli wraps an input in the command line the host invokes:
//
//	myinput --scheme
//	myinput --validate-arguments < items.xml
//	myinput < input.xml
//
// Settings come from defaults, then $HOME/.modinput/config.toml (or
// --config), then MODINPUT_* environment variables, then explicitly set
// flags.
package cli
