package config

const databasePathEnvVar = "DATABASE_PATH"

type StorageConfig interface {
	GetDatabasePath() string
}

type Storage struct {
	file *FileConfig
}

var _ StorageConfig = Storage{}

func (s Storage) GetDatabasePath() string {
	return GetEnv(databasePathEnvVar, fileString(s.file, func(fc *FileConfig) string { return fc.Storage.DatabasePath }, "./data/credentials.db"))
}
