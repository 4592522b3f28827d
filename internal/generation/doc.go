// Package generation provides interfaces and implementations for interacting
// with external generative AI services. It abstracts the details of the
// model API integration (Gemini), allowing the application to composite
// try-on images and extract garment metadata without coupling to specific
// external services.
package generation
