package modifications

// CleavageSites returns the 1-based positions of trypsin (K, R) and GluC
// (D, E) cleavage residues.
func CleavageSites(sequence string) (trypsin, gluC []int) {
	trypsin = []int{}
	gluC = []int{}
	for i := 0; i < len(sequence); i++ {
		switch sequence[i] {
		case 'K', 'R':
			trypsin = append(trypsin, i+1)
		case 'D', 'E':
			gluC = append(gluC, i+1)
		}
	}
	return trypsin, gluC
}
