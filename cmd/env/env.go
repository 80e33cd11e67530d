package env

// Prefix is the prefix of the environment variables
// that can be used in place of command flags (JCBRATES_LISTEN...)
const Prefix = "JCBRATES"
