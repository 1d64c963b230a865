// Package win32 reads the foreground window, user idle time and screen
// contents through user32 and gdi32.
package win32
