// Package config defines the format-agnostic model for a build
// definition: targets, their prerequisites and actions, and the
// variable assignments that parameterize them. Format-specific loaders
// (currently HCL) translate their own schemas into this model.
package config
