package helix

import "math"

// rotY returns the rotation matrix about the y axis by theta radians.
func rotY(theta float64) Mat3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Mat3{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	}
}

// rotZ returns the rotation matrix about the z axis by theta radians.
func rotZ(theta float64) Mat3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Mat3{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}
}

// Mul returns the matrix product a*b.
func (a Mat3) Mul(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return r
}

// Apply returns the matrix-vector product m*v.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// StepCoords converts one step parameter set to the center and frame of the
// second base pair of the step, with the first base pair at the origin
// aligned to the lab frame. The frame is built from tilt/roll/twist via the
// mid-step triad (El Hassan-Calladine construction); the displacement
// [shift, slide, rise] is expressed in the mid-step frame.
func StepCoords(p StepParams) (Vec3, Mat3) {
	gamma := math.Hypot(p[Tilt], p[Roll])
	phi := math.Atan2(p[Tilt], p[Roll])
	halfTwist := 0.5 * p[Twist]

	frame := rotZ(halfTwist - phi).Mul(rotY(gamma)).Mul(rotZ(halfTwist + phi))
	midStep := rotZ(halfTwist - phi).Mul(rotY(0.5 * gamma)).Mul(rotZ(phi))
	origin := midStep.Apply(Vec3{p[Shift], p[Slide], p[Rise]})

	return origin, frame
}

// ParamsToCoords converts a batch of step parameter sets to origins and
// frames. Outputs are row-aligned with the input.
func ParamsToCoords(params []StepParams) ([]Vec3, []Mat3) {
	origins := make([]Vec3, len(params))
	frames := make([]Mat3, len(params))
	for i, p := range params {
		origins[i], frames[i] = StepCoords(p)
	}
	return origins, frames
}
