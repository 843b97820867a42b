// Package helix generates random DNA base-pair step parameters for Monte
// Carlo helix simulations. A step parameter set is six numbers (shift,
// slide, rise, tilt, roll, twist) describing the transform between two
// consecutive base pairs. Samplers draw either from an empirical dataset
// (uniform resampling of observed rows) or from a multivariate Gaussian
// fitted to that dataset, with batched prefetching to amortise the cost of
// the multivariate draw and the geometry conversion.
package helix
