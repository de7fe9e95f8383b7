// Package policy defines the named format policies that govern story
// assembly: shot count, per-shot duration, resolution, frame rate, and the
// audio gains applied during mixing. Every stage receives its policy as an
// explicit value; nothing reads format settings from ambient state.
package policy
