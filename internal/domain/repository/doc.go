// Package repository define los contratos del Credential Repository.
//
// Las interfaces son independientes del almacenamiento. Implementaciones:
//
//	┌──────────────────────────────────────────────────────┐
//	│     services (otp, passkey, identity, admin, ...)    │
//	└──────────────────────────────────────────────────────┘
//	                         │
//	                         ▼
//	┌──────────────────────────────────────────────────────┐
//	│          domain/repository (interfaces)              │
//	│  EndUserRepository, IdentityRepository, Passkey...   │
//	└──────────────────────────────────────────────────────┘
//	                         │
//	              ┌──────────┴──────────┐
//	              ▼                     ▼
//	      ┌──────────────┐      ┌──────────────┐
//	      │   store/pg   │      │ store/memory │
//	      └──────────────┘      └──────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Lecturas de end users están acotadas por projectID (aislamiento de tenant).
//   - Violaciones de unicidad se reportan como ErrConflict; ausencia como ErrNotFound.
//   - Ningún adapter cachea EndUser ni Identity entre requests.
package repository
