package main

import "github.com/kvetinski/phonebook/internal/domain"

var demoContacts = []domain.ContactInput{
	{
		Username:  "Ivan Ivanov",
		Email:     "ivan@example.com",
		Telephone: domain.TelephoneInput{Mobile: "+79991234567", Home: "+74951234567"},
	},
	{
		Username:  "Maria Petrova",
		Email:     "maria@example.com",
		Telephone: domain.TelephoneInput{Mobile: "+79997654321", Home: "+74957654321"},
	},
	{
		Username:  "Alexey Smirnov",
		Email:     "alex@example.com",
		Telephone: domain.TelephoneInput{Mobile: "+79998887766"},
	},
}
