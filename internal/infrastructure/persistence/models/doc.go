// Package models contains the GORM persistence models of the payment-plan
// tables. Domain entities stay free of ORM tags; repositories convert with
// the ToDomain/FromDomain mappers defined next to each model.
package models
