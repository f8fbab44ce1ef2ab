// Package debug renders diagnostic plots for tuning LOD parameters: the
// skip curve S(d) and the distance distribution of exported points.
package debug
