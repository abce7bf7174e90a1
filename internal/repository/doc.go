// Package repository persists avatar metadata.
package repository
