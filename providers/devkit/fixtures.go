package devkit

import "github.com/goliatone/go-payouts/core"

func IndividualCustomerRequest(externalID string) core.CreateCustomerRequest {
	return core.CreateCustomerRequest{
		ExternalID: externalID,
		Type:       core.CustomerTypeIndividual,
		Role:       core.CustomerRoleBoth,
		Individual: &core.IndividualProfile{
			FirstName:   "Ana",
			LastName:    "Ruiz",
			Nationality: "ES",
		},
		Contact: core.ContactInfo{
			Email: externalID + "@example.test",
			Address: &core.Address{
				Line1:      "Calle Mayor 1",
				City:       "Madrid",
				PostalCode: "28013",
				Country:    "ES",
			},
		},
	}
}

func BusinessCustomerRequest(externalID string) core.CreateCustomerRequest {
	return core.CreateCustomerRequest{
		ExternalID: externalID,
		Type:       core.CustomerTypeBusiness,
		Role:       core.CustomerRoleSender,
		Business: &core.BusinessProfile{
			LegalName:          "Acme Pagos SL",
			RegistrationNumber: "B12345678",
			Country:            "ES",
		},
		Contact: core.ContactInfo{Email: "treasury@acme.test"},
	}
}

func EURBankAccount() core.BankAccount {
	return core.BankAccount{
		AccountHolder: "Ana Ruiz",
		IBAN:          "ES9121000418450200051332",
		SwiftCode:     "CAIXESBBXXX",
		BankName:      "CaixaBank",
		Currency:      "EUR",
		Country:       "ES",
		IsPrimary:     true,
	}
}

func QuoteRequest() core.QuoteRequest {
	return core.QuoteRequest{
		SourceCurrency:     "USDC",
		SourceAmount:       100,
		TargetCurrency:     "EUR",
		Network:            "polygon",
		DestinationCountry: "ES",
	}
}

// PayoutRequest is a USDC to EUR payout between two customer ids.
func PayoutRequest(senderID string, beneficiaryID string) core.CreatePayoutRequest {
	account := EURBankAccount()
	return core.CreatePayoutRequest{
		SourceCurrency: "USDC",
		SourceAmount:   100,
		TargetCurrency: "EUR",
		Network:        "polygon",
		Sender: core.PayoutParty{
			CustomerID: senderID,
			Type:       core.CustomerTypeBusiness,
			Name:       "Acme Pagos SL",
		},
		Beneficiary: core.PayoutParty{
			CustomerID:  beneficiaryID,
			Type:        core.CustomerTypeIndividual,
			Name:        "Ana Ruiz",
			BankAccount: &account,
		},
		Purpose:   "salary",
		Reference: "INV-1001",
	}
}
