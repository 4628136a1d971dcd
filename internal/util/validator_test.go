package util

import "testing"

func TestValidateCPF(t *testing.T) {
	cases := []struct {
		name    string
		cpf     string
		wantErr bool
	}{
		{"válido sem máscara", "11144477735", false},
		{"válido com máscara", "111.444.777-35", false},
		{"outro válido", "52998224725", false},
		{"curto", "1114447773", true},
		{"dígitos iguais", "11111111111", true},
		{"verificador errado", "11144477736", true},
		{"vazio", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCPF(tc.cpf)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateCPF(%q) = %v, wantErr %v", tc.cpf, err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeCPF(t *testing.T) {
	if got := NormalizeCPF("111.444.777-35"); got != "11144477735" {
		t.Errorf("NormalizeCPF = %s", got)
	}
	if got := NormalizeCPF("abc"); got != "" {
		t.Errorf("NormalizeCPF = %s", got)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("pessoa@exemplo.com"); err != nil {
		t.Errorf("email válido rejeitado: %v", err)
	}
	if err := ValidateEmail(""); err == nil {
		t.Error("email vazio aceito")
	}
	if err := ValidateEmail("sem-arroba"); err == nil {
		t.Error("email sem arroba aceito")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345678"); err != nil {
		t.Errorf("senha de 8 caracteres rejeitada: %v", err)
	}
	if err := ValidatePassword("1234567"); err == nil {
		t.Error("senha curta aceita")
	}
}

func TestRequireString(t *testing.T) {
	if err := RequireString("ok", "name"); err != nil {
		t.Errorf("valor presente rejeitado: %v", err)
	}
	if err := RequireString("   ", "name"); err == nil {
		t.Error("valor em branco aceito")
	}
}
