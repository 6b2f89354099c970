package constants

// IDRandomBytes is the number of random bytes in generated entity IDs.
const IDRandomBytes = 16
