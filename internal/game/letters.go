package game

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Rarity-weighted point values, A through Z.
var letterScores = [26]int{
	1, 3, 3, 2, 1, 4, 2, 4, 1, 8, 5, 1, 3,
	1, 1, 3, 10, 1, 1, 1, 1, 4, 4, 8, 4, 10,
}

// PointsForLetter returns the nominal point pool for a round played on the
// given uppercase letter. Unknown letters are worth nothing.
func PointsForLetter(letter byte) int {
	if letter < 'A' || letter > 'Z' {
		return 0
	}
	return letterScores[letter-'A']
}

func letterAt(index int) byte {
	if index < 0 || index >= len(alphabet) {
		return 0
	}
	return alphabet[index]
}
