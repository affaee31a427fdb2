// Package repository define las entidades del dominio y los contratos de
// persistencia. Los adapters concretos (pg, sqlite, fs) viven en
// internal/store y se registran contra estas interfaces.
package repository
