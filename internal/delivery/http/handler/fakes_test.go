package handler

import (
	"context"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/usecase"

	"gorm.io/datatypes"
)

type fakeRoomUsecase struct {
	create func(identifier, description string) (*entity.Room, error)
	list   func(filter *entity.RoomFilter) ([]entity.Room, error)
	delete func(id int64, force bool) error
}

func (f *fakeRoomUsecase) Create(_ context.Context, identifier, description string) (*entity.Room, error) {
	return f.create(identifier, description)
}

func (f *fakeRoomUsecase) GetByID(context.Context, int64) (*entity.Room, error) {
	return nil, usecase.ErrRoomNotFound
}

func (f *fakeRoomUsecase) FindByIdentifier(context.Context, string) (*entity.Room, error) {
	return nil, usecase.ErrRoomNotFound
}

func (f *fakeRoomUsecase) List(_ context.Context, filter *entity.RoomFilter) ([]entity.Room, error) {
	return f.list(filter)
}

func (f *fakeRoomUsecase) SetActive(_ context.Context, id int64, active bool) (*entity.Room, error) {
	return &entity.Room{ID: id, Identifier: "206", IsActive: active}, nil
}

func (f *fakeRoomUsecase) Delete(_ context.Context, id int64, force bool) error {
	return f.delete(id, force)
}

type fakeDoctorRoomUsecase struct {
	setRoom  func(doctorID int64, room string) (*entity.Doctor, error)
	occupant func(room string) (*entity.Doctor, error)
}

func (f *fakeDoctorRoomUsecase) SetRoomForToday(_ context.Context, doctorID int64, room string) (*entity.Doctor, error) {
	return f.setRoom(doctorID, room)
}

func (f *fakeDoctorRoomUsecase) HasRoomToday(context.Context, int64) (*usecase.RoomStatus, error) {
	return &usecase.RoomStatus{}, nil
}

func (f *fakeDoctorRoomUsecase) FindDoctorInRoomToday(_ context.Context, room string) (*entity.Doctor, error) {
	return f.occupant(room)
}

func (f *fakeDoctorRoomUsecase) ListOccupancyToday(context.Context) ([]entity.RoomOccupancy, error) {
	return nil, nil
}

type fakeAssignmentUsecase struct {
	assign     func(patientID, doctorID int64, room string) (*entity.Visit, error)
	newVisit   func(patientID, doctorID int64, room string) (*entity.Visit, entity.VisitType, error)
	changeRoom func(patientID int64, room, actor string) (*usecase.RoomChangeResult, error)
	complete   func(patientID, doctorID int64) (*entity.Visit, error)
}

func (f *fakeAssignmentUsecase) AssignPatientToDoctorRoom(_ context.Context, patientID, doctorID int64, room string) (*entity.Visit, error) {
	return f.assign(patientID, doctorID, room)
}

func (f *fakeAssignmentUsecase) CreateVisitForExistingPatient(_ context.Context, patientID, doctorID int64, room string) (*entity.Visit, entity.VisitType, error) {
	return f.newVisit(patientID, doctorID, room)
}

func (f *fakeAssignmentUsecase) ChangePatientRoom(_ context.Context, patientID int64, room, actor string) (*usecase.RoomChangeResult, error) {
	return f.changeRoom(patientID, room, actor)
}

func (f *fakeAssignmentUsecase) MarkVisitComplete(_ context.Context, patientID, doctorID int64) (*entity.Visit, error) {
	return f.complete(patientID, doctorID)
}

type fakeVisitUsecase struct {
	listToday    func() ([]entity.Visit, error)
	autoComplete func() (int64, error)
	start        func(patientID int64) (*entity.Visit, error)
}

func (f *fakeVisitUsecase) Create(context.Context, usecase.NewVisit) (*entity.Visit, error) {
	return nil, nil
}

func (f *fakeVisitUsecase) GetVisitCount(context.Context, int64) (int64, error) {
	return 0, nil
}

func (f *fakeVisitUsecase) FindForPatientOnDate(context.Context, int64, datatypes.Date) (*entity.Visit, error) {
	return nil, nil
}

func (f *fakeVisitUsecase) MarkCompletedToday(context.Context, int64, datatypes.Date, *int64, *string) (*entity.Visit, error) {
	return nil, nil
}

func (f *fakeVisitUsecase) AutoCompleteStale(context.Context) (int64, error) {
	return f.autoComplete()
}

func (f *fakeVisitUsecase) StartVisit(_ context.Context, patientID int64) (*entity.Visit, error) {
	return f.start(patientID)
}

func (f *fakeVisitUsecase) ListToday(context.Context) ([]entity.Visit, error) {
	return f.listToday()
}
