// Package domain contains the core business entities, value objects, and
// domain logic of the speech batch system. It represents the heart of the
// application, independent of any specific infrastructure or delivery
// mechanism: schemes and their segment documents, speech tasks, and the
// status machines both move through.
package domain
