// Package tracking keeps a solved maze path registered with a moving camera.
//
// A Tracker is initialized from a maze and the frame it was detected in. It
// anchors on points along the maze's rectangular extent: the four corners
// plus evenly spaced edge samples. For every new frame it:
//
//  1. Predicts each anchor's position with the current transform.
//  2. Asks its Matcher for correspondences near those predictions.
//  3. Fits a homography to the correspondences with RANSAC, rejecting
//     outliers, and refits on the inliers with the normalized DLT.
//
// With fewer than four correspondences, or no consistent fit, Track returns
// false and the previous transform stays in effect.
//
// # Transforms
//
// Transforms are geom.Matrix values applied with homogeneous division, so the
// general projective case is supported; affine and pure translations are
// special cases with a (0, 0, 1) bottom row.
//
// # Matchers
//
// BlockMatcher is the default correspondence search: grayscale patch
// comparison inside a search window. It assumes small inter-frame motion.
// Any other strategy (optical flow, descriptor matching) can be plugged in
// through the Matcher interface without touching the estimator.
package tracking
