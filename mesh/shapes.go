package mesh

// UnitCube returns the cube [0,1]^3 with 8 shared vertices and 12 outward
// facing triangles.
func UnitCube() *Mesh {
	return &Mesh{
		Vertices: []float32{
			0, 0, 0, // 0
			1, 0, 0, // 1
			1, 1, 0, // 2
			0, 1, 0, // 3
			0, 0, 1, // 4
			1, 0, 1, // 5
			1, 1, 1, // 6
			0, 1, 1, // 7
		},
		Faces: []uint32{
			0, 2, 1, 0, 3, 2, // z = 0
			4, 5, 6, 4, 6, 7, // z = 1
			0, 1, 5, 0, 5, 4, // y = 0
			3, 7, 6, 3, 6, 2, // y = 1
			0, 4, 7, 0, 7, 3, // x = 0
			1, 2, 6, 1, 6, 5, // x = 1
		},
	}
}

// Tetrahedron returns a single right-corner tetrahedron surface.
func Tetrahedron() *Mesh {
	return &Mesh{
		Vertices: []float32{
			0, 0, 0,
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		},
		Faces: []uint32{
			0, 2, 1,
			0, 1, 3,
			1, 2, 3,
			0, 3, 2,
		},
	}
}
