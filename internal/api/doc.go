// Package api serves a trained constrained model and its corpus store over
// HTTP with JSON bodies.
package api
