package greenmap

// Version is the release version of the greenmap tools.
const Version = "0.1.0"
