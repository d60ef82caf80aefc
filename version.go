package wirecho

// Version is the server banner attached to handshake responses as the
// Server header.
const Version = "wirecho/0.1.0"
