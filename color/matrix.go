package color

// Matrix3x3 is a row-major 3x3 float matrix, used for the RGB to XYZ D50
// transform assembled from the rXYZ/gXYZ/bXYZ tags.
type Matrix3x3 [3][3]float32

// Matrix3x4 is a 3x3 matrix with a fourth translation column, as stored in
// the lutAToBType matrix stage.
type Matrix3x4 [3][4]float32
