package services

import (
	"errors"
	"parcel-dispatch-service/internal/domain"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() RegisterPackageInput {
	return RegisterPackageInput{
		OriginAddress:      " Calle Mayor 1 ",
		DestinationAddress: "Calle Real 5",
		Origin:             ptr(at(0, 0)),
		Destination:        ptr(at(0.18, 0)),
		Contents:           "books",
		WeightKg:           12,
		LengthCm:           50,
		WidthCm:            40,
		HeightCm:           30,
		ActorID:            ptr("clerk-7"),
	}
}

func TestRegisterPackageStoresAndAssigns(t *testing.T) {
	f, van := twoDepotFixture(t, true)

	pkg, a, err := f.engine.RegisterPackage(f.ctx, validInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(pkg.TrackingCode, "ET-20260302-"))
	assert.Equal(t, "Calle Mayor 1", pkg.OriginAddress)
	assert.InDelta(t, 0.06, pkg.VolumeM3, 1e-12)
	assert.Equal(t, domain.PackageStatusAssigned, pkg.Status)
	require.NotNil(t, pkg.AssignedVehicleID)
	assert.Equal(t, van.ID, *pkg.AssignedVehicleID)
	assert.Equal(t, OutcomeAssigned, a.Outcome)

	history, err := f.store.ListStatusHistory(f.ctx, pkg.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.PackageStatusRegistered, history[0].Status)
	assert.Equal(t, "Package registered in the system", history[0].Note)
	require.NotNil(t, history[0].ActorID)
	assert.Equal(t, "clerk-7", *history[0].ActorID)
	assert.Nil(t, history[1].ActorID)
}

func TestRegisterPackageUnassignedIsNotAnError(t *testing.T) {
	f, _ := twoDepotFixture(t, false)

	pkg, a, err := f.engine.RegisterPackage(f.ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.PackageStatusRegistered, pkg.Status)
	assert.Equal(t, ReasonNoDriver, a.Reason)
}

func TestRegisterPackageValidation(t *testing.T) {
	f, _ := twoDepotFixture(t, true)

	mutations := map[string]func(*RegisterPackageInput){
		"blank origin":    func(in *RegisterPackageInput) { in.OriginAddress = "  " },
		"zero weight":     func(in *RegisterPackageInput) { in.WeightKg = 0 },
		"negative height": func(in *RegisterPackageInput) { in.HeightCm = -1 },
		"bad latitude":    func(in *RegisterPackageInput) { in.Destination = ptr(at(0, 95)) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, _, err := f.engine.RegisterPackage(f.ctx, in)
			assert.True(t, errors.Is(err, ErrInvalidPackage))
		})
	}
}
