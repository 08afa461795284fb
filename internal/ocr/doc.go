// Package ocr reads the text printed on label crops.
//
// Recognition is behind the Engine interface with two implementations:
//
//   - TesseractEngine: local Tesseract through gosseract/v2 (the default).
//   - VisionEngine: Google Cloud Vision text detection.
//
// Reader wraps an Engine with the label policy: optional preprocessing,
// merging of multi-line output into one string, and cleanup of OCR noise.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - English: tesseract-ocr-eng
//   - Chinese (Simplified): tesseract-ocr-chi-sim
//
// The Vision engine needs Google Cloud credentials, from either:
//   - GOOGLE_CREDENTIALS: inline service account JSON
//   - GOOGLE_APPLICATION_CREDENTIALS: path to a service account file
//
// # Languages
//
// Short codes follow the command line: "en" (English) and "ch" (Chinese
// plus English). Other values are passed to the engine unchanged, e.g.
// "deu" or "jpn+eng" for Tesseract.
//
// # Error Handling
//
// Engine failures are returned as *Error values carrying the failed
// operation. They match the package sentinels with errors.Is, e.g.
// errors.Is(err, ErrRecognitionFailed).
package ocr
