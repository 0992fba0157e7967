// Package xfman drives the XFOIL executable through scripted command
// sessions.
package xfman

// Version is the xfman release version.
const Version = "v0.1.0"
